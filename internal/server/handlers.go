package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"pwaforge/internal/api"
	"pwaforge/internal/job"
	"pwaforge/internal/pipeline"
	"pwaforge/internal/pwagen"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	var req pipeline.AnalyzeRequest
	switch {
	case strings.Contains(contentType, "multipart/form-data"):
		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeErr(w, http.StatusBadRequest, "file not provided")
			return
		}
		defer file.Close()
		payload, err := io.ReadAll(file)
		if err != nil {
			s.writeErr(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		req = pipeline.AnalyzeRequest{
			InputType:   job.InputZip,
			ArchiveName: header.Filename,
			Archive:     payload,
		}
	case strings.Contains(contentType, "application/json"):
		var body struct {
			GitHubURL string `json:"githubUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(body.GitHubURL) == "" {
			s.writeErr(w, http.StatusBadRequest, "GitHub URL not provided")
			return
		}
		req = pipeline.AnalyzeRequest{
			InputType: job.InputGitHub,
			RepoURL:   strings.TrimSpace(body.GitHubURL),
		}
	default:
		s.writeErr(w, http.StatusBadRequest, "unsupported content type")
		return
	}

	state, err := s.ctrl.StartAnalyze(r.Context(), req)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeData(w, http.StatusOK, api.JobStarted{JobID: state.ID})
}

// handleJob serves /api/job/{id} and the stage triggers nested under it.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/job/")
	if rest == "" {
		s.writeErr(w, http.StatusNotFound, "job not found")
		return
	}
	id, action, _ := strings.Cut(rest, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		state, err := s.ctrl.Job(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.FromJobState(state, time.Now(), s.staleAfter))
		return
	}

	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch action {
	case "generate":
		var body struct {
			ThemeColor      string `json:"themeColor"`
			BackgroundColor string `json:"backgroundColor"`
			AppName         string `json:"appName"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		state, err := s.ctrl.StartGenerate(r.Context(), id, pwagen.GenerateOptions{
			ThemeColor:      body.ThemeColor,
			BackgroundColor: body.BackgroundColor,
			AppName:         body.AppName,
		})
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.JobStarted{JobID: state.ID})
	case "validate":
		state, err := s.ctrl.StartValidate(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.JobStarted{JobID: state.ID})
	case "export":
		var body struct {
			Type       string `json:"type"`
			Repository string `json:"repository"`
			WorkerName string `json:"workerName"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		exportType := job.ExportType(body.Type)
		if exportType == "" {
			exportType = job.ExportZip
		}
		state, err := s.ctrl.StartExport(r.Context(), id, exportType, pwagen.ExportOptions{
			Repository: body.Repository,
			WorkerName: body.WorkerName,
		})
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, state.Export)
	case "rerun":
		state, err := s.ctrl.Rerun(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.RerunStarted{NewJobID: state.ID})
	default:
		s.writeErr(w, http.StatusNotFound, "unknown job action")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cursor, limit := pageParams(r)
		page, err := s.history.History(r.Context(), cursor, limit)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.FromJobPage(page, time.Now(), s.staleAfter))
	case http.MethodDelete:
		cleared, err := s.history.ClearHistory(r.Context())
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.HistoryCleared{ClearedCount: cleared})
	default:
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cursor, limit := pageParams(r)
		page, err := s.demo.ListUsers(r.Context(), cursor, limit)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.UserPage{Items: page.Items, Next: page.Next})
	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := s.demo.CreateUser(r.Context(), body.Name)
		if err != nil {
			s.writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeData(w, http.StatusOK, user)
	default:
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUserItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if rest == "deleteMany" {
		s.handleDeleteMany(w, r, s.demo.DeleteUsers)
		return
	}
	if r.Method != http.MethodDelete || rest == "" || strings.Contains(rest, "/") {
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	deleted, err := s.demo.DeleteUser(r.Context(), rest)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeData(w, http.StatusOK, api.Deleted{ID: rest, Deleted: deleted})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cursor, limit := pageParams(r)
		page, err := s.demo.ListChats(r.Context(), cursor, limit)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.ChatPage{Items: page.Items, Next: page.Next})
	case http.MethodPost:
		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		summary, err := s.demo.CreateChat(r.Context(), body.Title)
		if err != nil {
			s.writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeData(w, http.StatusOK, summary)
	default:
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleChatItem serves /api/chats/{id}, /api/chats/{id}/messages, and the
// deleteMany batch endpoint.
func (s *Server) handleChatItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	if rest == "deleteMany" {
		s.handleDeleteMany(w, r, s.demo.DeleteChats)
		return
	}
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeErr(w, http.StatusNotFound, "chat not found")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		deleted, err := s.demo.DeleteChat(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, api.Deleted{ID: id, Deleted: deleted})
	case sub == "messages" && r.Method == http.MethodGet:
		msgs, err := s.demo.ListMessages(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeData(w, http.StatusOK, msgs)
	case sub == "messages" && r.Method == http.MethodPost:
		var body struct {
			UserID string `json:"userId"`
			Text   string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		exists, err := s.demo.ChatExists(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		if !exists {
			s.writeErr(w, http.StatusNotFound, "chat not found")
			return
		}
		msg, err := s.demo.SendMessage(r.Context(), id, body.UserID, body.Text)
		if err != nil {
			s.writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeData(w, http.StatusOK, msg)
	default:
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, ids []string) (int64, error)) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ids := make([]string, 0, len(body.IDs))
	for _, id := range body.IDs {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		s.writeErr(w, http.StatusBadRequest, "ids required")
		return
	}
	count, err := del(r.Context(), ids)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeData(w, http.StatusOK, api.DeletedMany{DeletedCount: count, IDs: ids})
}
