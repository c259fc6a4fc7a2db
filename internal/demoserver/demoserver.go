// Package demoserver is a minimal net/http consumer exercising the public
// ctxguard API end to end: fork a lineage per request, install a
// file-access controller on it, and run a handler body through
// wrap_function, with a JSON error body and logging.Op() on deny.
//
// The promise tracker models a single-threaded cooperative scheduler: one
// executing-task stack shared process-wide. A real HTTP server runs one
// goroutine per request, so this handler is a demonstration of the API's
// call sequence, not a template for concurrent production traffic —
// serialise requests in front of it (or give each tenant its own process)
// if that matters for a real deployment.
package demoserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oriys/ctxguard"
	"github.com/oriys/ctxguard/internal/errs"
	"github.com/oriys/ctxguard/internal/logging"
)

// FileReader performs the domain operation the demo handler guards: reading
// the content behind a path. Swap in a real filesystem read; the handler
// itself never touches the filesystem.
type FileReader func(path string) (string, error)

// NewHandler returns an http.Handler serving GET /?path=<path>: the path
// query parameter is checked against root's compiled matchers before
// reader is invoked.
func NewHandler(root ctxguard.FileAccessOptions, reader FileReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing path query parameter"})
			return
		}

		handle := new(struct{})
		ctxguard.DispatchInit(handle, nil)
		ctxguard.DispatchBefore(handle)
		defer ctxguard.DispatchAfter(handle)

		lineage := ctxguard.ForkForPromise(false, false)
		if err := ctxguard.StartPromise(lineage); err != nil {
			logging.Op().Warn("demoserver: failed to start promise lineage", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		defer ctxguard.EndPromise(lineage)

		view := ctxguard.GetCurrentContext()
		controllers, err := ctxguard.AddFileAccessController(nil, root)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		frameID, err := view.PushControllers(controllers)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		defer view.PopControllers(frameID)

		wrapped := ctxguard.WrapFunction(
			[]ctxguard.SegmentCall{{
				Segment: ctxguard.FileAccessSegment,
				Options: map[string]any{"read": []any{"{0}"}},
			}},
			func(args []any) (any, error) { return reader(args[0].(string)) },
		)

		result, err := wrapped([]any{path})
		if err != nil {
			var accessErr *errs.AccessError
			if errors.As(err, &accessErr) {
				logging.Op().Warn("demoserver: file access denied", "path", path)
				writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
				return
			}
			logging.Op().Warn("demoserver: handler error", "path", path, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"path": path, "content": result})
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
