// Package config reads pmsync's TOML configuration.
//
// Load starts from Default, overlays the file, applies the PMSYNC_REPO,
// PMSYNC_DRY_RUN and PMSYNC_FORCE environment fallbacks, expands every path
// to an absolute one (relative epics directories hang off the project root)
// and validates the comment size limits. Unknown keys are an error.
package config
