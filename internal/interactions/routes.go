package interactions

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the interaction webhook endpoint on the given router.
func RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Post("/interactions", d.ServeHTTP)
}
