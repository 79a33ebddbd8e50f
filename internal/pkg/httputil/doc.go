// Package httputil holds the JSON response helpers shared by the API
// handlers. Handlers go through these instead of writing to the
// http.ResponseWriter directly so every endpoint emits the same error
// shape and logs failures the same way.
package httputil
