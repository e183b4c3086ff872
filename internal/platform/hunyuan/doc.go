// Package hunyuan is the HTTP client for the Hunyuan3D web API. It
// implements generation.Service (submit and poll) and exposes the read-only
// creations list, quota and user info endpoints.
//
// Authentication uses the same cookies as the web application (hy_token,
// hy_user, hy_source) and every request carries a fresh trace-id header.
package hunyuan
