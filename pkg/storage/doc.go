// Package storage archives rendered chart artifacts to S3-compatible
// object storage (AWS S3, Cloudflare R2, MinIO). Archiving is a side
// channel: requests are served from the render path and the archive
// write happens after the response, so storage outages never surface
// to callers.
package storage
