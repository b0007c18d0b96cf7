package httpapi

import (
	"net/http"

	"github.com/MrEthical07/arena/search"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeSuccess(w, http.StatusOK, "", resultsEnvelope(search.Empty()))
		return
	}
	res, err := search.Run(r.Context(), s.searcher, r.URL.Query().Get("q"), s.searchLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", resultsEnvelope(res))
}

func resultsEnvelope(res *search.Results) envelope {
	return envelope{
		"challenges": res.Challenges,
		"contests":   res.Contests,
		"users":      res.Users,
	}
}
