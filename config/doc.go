// Package config provides configuration loading and validation for CoraBooks.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (CORABOOKS_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// All config keys map to environment variables with the CORABOOKS_ prefix:
//   - server.port → CORABOOKS_SERVER_PORT
//   - storage.s3.bucket → CORABOOKS_STORAGE_S3_BUCKET
//   - admin.key → CORABOOKS_ADMIN_KEY
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, max_upload_size and public_url
//   - Service: cleanup_timeout and allowed_extensions
//   - Database: metadata backend type, DSN, document key and table names
//   - Storage: filesystem or s3 object store settings
//   - Admin: the key required by admin endpoints
//   - Cleanup: stale intent threshold and background sweep interval
//   - Download: download link lifetime
//   - CORS: cross-origin resource sharing settings
//   - Log: level and environment
package config
