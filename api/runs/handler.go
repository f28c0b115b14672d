// Package runs exposes the run history over HTTP.
package runs

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/oncall/infra/runlog"
)

// NewHandler returns an HTTP handler serving GET /api/runs. Query
// parameters start and end (RFC 3339), status, rule and run_id filter the
// records. Requests must include "Authorization: Bearer <token>" when token
// is non-empty.
func NewHandler(store runlog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		v := r.URL.Query()
		q := runlog.Query{Status: v.Get("status"), Rule: v.Get("rule")}
		for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := v.Get(key)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+key+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if id := v.Get("run_id"); id != "" {
			var one []runlog.RunRecord
			for _, rec := range records {
				if rec.RunID == id {
					one = append(one, rec)
				}
			}
			if len(one) == 0 {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			records = one
		}
		if records == nil {
			records = []runlog.RunRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
