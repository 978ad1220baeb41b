// Package validation enforces the request parameter contract at the API
// boundary: repository lists, timeframes, themes, output formats, and
// chart dimensions.
//
// Invalid values fail the request with a parameter-specific message;
// nothing is ever silently clamped or defaulted. All messages are safe
// to return verbatim in a 400 response body.
package validation
