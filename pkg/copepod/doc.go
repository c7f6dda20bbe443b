// Package copepod provides types, interfaces, and helpers for working with the
// Copepod platform API.
//
// # Overview
//
// The copepod package defines the domain types (Org, App, Collection, Record,
// RecordEvent) and the interfaces for resource-oriented clients (AuthClient,
// OrgsClient, RecordsClient, RealtimeClient and so on). A concrete
// implementation is provided by the copepodclient package, which wires
// configuration, credential storage, the request pipeline and event streams.
// Most consumers import copepodclient to construct a client and then work with
// the interfaces exposed here.
//
// # Errors
//
// Every failure of a call is a *Error carrying a Kind. Match the kind with
// errors.Is against ErrTransport, ErrAPI, ErrAuth, ErrDecode or ErrStream, and
// inspect API failures with StatusCode, ErrorCode or the IsNotFound family:
//
//	_, err := cli.Orgs().Get(ctx, "org-id")
//	switch {
//	case copepod.IsNotFound(err):
//	  // gone
//	case errors.Is(err, copepod.ErrTransport):
//	  // retry later
//	}
//
// # Queries and pagination
//
// RecordQueryParams expresses filter, sort, expand, fields and paging options.
// FetchAllPages walks a paginated list:
//
//	all, err := copepod.FetchAllPages(ctx, func(ctx context.Context, page int) (*copepod.ListResult[copepod.Record], error) {
//	  return cli.Records().List(ctx, org, app, "posts", copepod.NewRecordQueryParams().WithPage(page))
//	})
//
// # Batches
//
// BatchExecutor runs record operations with bounded concurrency; BatchBuilder
// assembles the operations.
//
// # Interceptors and logging
//
// Config.RequestInterceptors run before every dispatched call and
// Config.ResponseInterceptors after it, in order; the client folds them into an
// InterceptorChain. HeaderInterceptor adds fixed headers. LoggingInterceptor and
// LoggingResponseInterceptor report each call through a Logger, including the
// error kind and Request.Elapsed:
//
//	logger := copepod.NewZerologLogger(zerolog.New(os.Stderr))
//	cli, err := copepodclient.New(ctx, &copepod.Config{
//	  APIEndpoint:          "https://api.copepod.dev",
//	  RequestInterceptors:  []copepod.RequestInterceptor{copepod.LoggingInterceptor(logger)},
//	  ResponseInterceptors: []copepod.ResponseInterceptor{copepod.LoggingResponseInterceptor(logger)},
//	})
//
// Logger adapters exist for zerolog (NewZerologLogger) and zap (NewZapLogger).
package copepod
