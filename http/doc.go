// Package http provides the HTTP API of CoraBooks.
//
// Clients upload books in three steps:
//
//	POST /upload-intent   declare filename and size, receive an upload ticket
//	PUT  <uploadUrl>      send the bytes straight to the object store
//	POST /commit          verify the object and make the record visible
//
// Listing, download, covers and metadata edits build on the committed
// records. Admin routes (PATCH and DELETE /files/{id}, /admin/*) require the
// X-Admin-Key header.
//
// # Usage
//
//	handlerCfg := http.HandlerConfig{
//	    AdminKey: cfg.Admin.Key,
//	    CORS:     cfg.CORS,
//	    Blobs:    fsStore, // nil unless the filesystem object store is used
//	}
//	handler := http.NewHandler(&handlerCfg, service)
//	http.ListenAndServe(":8080", handler.Router())
//
// # Errors
//
// Failures are written as {"ok":false,"error":code,"message":text}. Commit
// integrity failures add a reason and map to 410 (object missing) and 422
// (size mismatch). Upstream credential failures map to 502.
package http
