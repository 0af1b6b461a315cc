package api

import "net/http"

// AnalyzeRequest is the JSON body for POST /contracts/analyze.
type AnalyzeRequest struct {
	ContractText string `json:"contract_text"`
}

// AnalyzeResponse is the JSON body returned from POST /contracts/analyze.
type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}

// AnalyzeContract handles POST /api/v1/contracts/analyze
func (s *Service) AnalyzeContract(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, "contract analysis is not configured", http.StatusServiceUnavailable)
		return
	}

	var req AnalyzeRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := s.analyzer.Analyze(r.Context(), req.ContractText)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Analysis: out})
}
