// Package copepodclient provides the primary entry point for constructing a
// Copepod platform client that implements the copepod.Client interface.
//
// It layers endpoint normalization, credential seeding, token persistence,
// metrics and the authenticated request pipeline on top of the resource
// interfaces and types defined in the copepod package. Most applications import
// copepodclient to build a client, then use the returned copepod.Client to reach
// the resource clients: Auth(), Orgs(), Apps(), Collections(), Records(), Files()
// and Realtime().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/oreanmos/copepod-go/pkg/copepod"
//	  "github.com/oreanmos/copepod-go/pkg/copepodclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Log in during construction.
//	  cli, err := copepodclient.New(ctx, &copepod.Config{
//	    APIEndpoint: "api.copepod.dev", // https:// is assumed
//	    Email:       "ada@example.com",
//	    Password:    "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  records, err := cli.Records().List(ctx, "org-id", "app-id", "posts",
//	    copepod.NewRecordQueryParams().WithFilter(`status = "published"`).WithPerPage(20))
//	  if err != nil { log.Fatal(err) }
//	  _ = records
//	}
//
// # Credentials
//
// A pair given through Config.AccessToken and Config.RefreshToken is used as is;
// without TokenExpiresAt it never expires and is never refreshed on timing grounds.
// Set ExpiryFromJWT to read the expiry of issued tokens from their "exp" claim.
// With Config.Persistence the last pair is stored in Redis or a NATS JetStream
// key-value bucket and picked up by the next client:
//
//	cli, err := copepodclient.New(ctx, &copepod.Config{
//	  APIEndpoint: "https://api.copepod.dev",
//	  Persistence: &copepod.PersisterConfig{
//	    Type:  copepod.PersisterTypeRedis,
//	    Redis: &copepod.RedisPersisterConfig{Addr: "localhost:6379"},
//	  },
//	})
//
// # Realtime
//
// Realtime().Subscribe opens a server-sent event stream with a snapshot of the
// current access token:
//
//	sub, err := cli.Realtime().Subscribe(ctx, "org-id", "app-id")
//	if err != nil { log.Fatal(err) }
//	defer sub.Close()
//
//	for event, err := range sub.All() {
//	  if err != nil {
//	    log.Printf("skipping frame: %v", err)
//	    continue
//	  }
//	  log.Printf("%s on %s", event.Action, event.Collection)
//	}
//
// # Helpers
//
// The package also provides convenience constructors NewWithEndpoint,
// NewWithToken and NewWithPassword that wrap New with the appropriate
// configuration.
package copepodclient
