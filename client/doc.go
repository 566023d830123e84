// Package client talks to a CoraBooks server over its HTTP API.
//
// Upload runs the whole upload protocol: it declares the file with
// POST /upload-intent, sends the bytes to the returned ticket URL, and
// confirms the upload with POST /commit. The ticket URL points either at
// the server's own /blob endpoint or at a presigned object store URL; the
// client does not need to know which.
//
// # Usage
//
//	c, err := client.New(&client.Config{Endpoint: "http://localhost:8080"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := c.Upload(ctx, client.UploadOptions{LocalPath: "dune.pdf"})
//	if errors.Is(err, client.ErrSizeMismatch) {
//	    // the record was purged, start over
//	}
//
// Admin operations (Delete, Cleanup) require Config.AdminKey.
//
// # Errors
//
// Non-2xx responses are returned as *APIError. Use errors.Is with the
// sentinel errors to check the status:
//
//	if errors.Is(err, client.ErrNotFound) {
//	    // handle 404
//	}
package client
