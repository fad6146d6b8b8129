// Package errors provides structured error types for better observability
// and programmatic error handling across the provisioning toolkit.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeIOFailure,
//	    "failed to back up managed file",
//	    copyErr,
//	    map[string]interface{}{
//	        "path": filePath,
//	        "backup_dir": backupDir,
//	    },
//	)
package errors
