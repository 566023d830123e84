// Package corabooks implements the upload-intent/commit/cleanup protocol behind
// the CoraBooks library: clients upload book files directly to an object store,
// and the service keeps a single metadata document describing every file.
//
// An upload happens in three phases:
//
//   - Intent: the client declares a file; the service obtains a one-shot upload
//     ticket from the object store and records a pending entry.
//   - Direct upload: the client pushes the bytes straight to the object store.
//   - Commit: the service verifies that an object with the exact expected name
//     and size exists, then marks the entry ready.
//
// Entries whose commit never arrives are reconciled by Cleanup, which runs on
// demand or periodically through a Sweeper.
//
// # Key Components
//
//   - Service: the protocol operations over a MetadataRepo and an ObjectStore
//   - MetadataRepo: the metadata document with atomic read-modify-write
//   - ObjectStore: authorizes an ObjectSession for upload tickets, lookups and deletes
//
// # Example Usage
//
//	service, err := corabooks.NewService(repo, store, corabooks.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	intent, err := service.CreateIntent(ctx, corabooks.IntentRequest{
//	    OriginalFilename: "book.epub",
//	    Size:             1048576,
//	})
//	// ... client uploads to intent.Ticket.UploadURL ...
//	result, err := service.Commit(ctx, intent.ID)
//
// See the database package for metadata backends, the objectstore packages for
// storage backends, and the http package for the REST API.
package corabooks
