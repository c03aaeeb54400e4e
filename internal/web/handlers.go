package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prokemal2012/Filx/internal/comments"
	"github.com/prokemal2012/Filx/internal/documents"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/notifications"
	"github.com/prokemal2012/Filx/internal/social"
)

// Feed and discovery

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	f, err := s.deps.Feed.GetFeed(r.Context(), userID(r), queryLimit(r), queryInt(r, "offset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	acts, err := s.deps.Feed.RecentActivity(r.Context(), userID(r), queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": acts})
}

func (s *Server) handleActivityFeed(w http.ResponseWriter, r *http.Request) {
	includeOwn := r.URL.Query().Get("includeOwn") == "true"
	page, err := s.deps.Feed.ActivityFeed(r.Context(), userID(r), queryInt(r, "page"), queryLimit(r), includeOwn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTrendingDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Explore.TrendingDocuments(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	ex, err := s.deps.Explore.ExploreSections(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleTrendingTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.deps.Explore.TrendingTopics(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Explore.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleTrendingCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Explore.TrendingCategories(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// Social

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("userId")
	if target == "" {
		target = userID(r)
	}
	conns, err := s.deps.Social.Connections(r.Context(), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	targetID, targetType := q.Get("targetId"), q.Get("targetType")

	// Older clients send documentId or userId and leave the type implicit
	if targetID == "" {
		if id := q.Get("documentId"); id != "" {
			targetID = id
			if targetType == "" {
				targetType = string(models.TargetDocument)
			}
		} else if id := q.Get("userId"); id != "" {
			targetID = id
			if targetType == "" {
				targetType = string(models.TargetUser)
			}
		}
	}

	st, err := s.deps.Social.Status(r.Context(), userID(r), targetID, targetType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Social.Bookmarks(r.Context(), userID(r), queryInt(r, "page"), queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleLikes(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Social.Likes(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleIsFollowing(w http.ResponseWriter, r *http.Request) {
	ok, err := s.deps.Social.IsFollowing(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isFollowing": ok})
}

type documentTarget struct {
	DocumentID string `json:"documentId"`
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	var req documentTarget
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Social.ToggleLike(r.Context(), userID(r), req.DocumentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	var req documentTarget
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Social.ToggleBookmark(r.Context(), userID(r), req.DocumentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetUserID string `json:"targetUserId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Social.ToggleFollow(r.Context(), userID(r), req.TargetUserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUserCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Social.UserCounts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var upd social.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.deps.Social.UpdateProfile(r.Context(), userID(r), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Documents

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.deps.Documents.Search(r.Context(), userID(r), documents.SearchRequest{
		Query:    q.Get("q"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
		OwnerID:  q.Get("userId"),
		Limit:    queryLimit(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var in documents.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.deps.Documents.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Documents.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var in documents.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.deps.Documents.Update(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Documents.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Documents.ListByOwner(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// Comments

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	thread, err := s.deps.Comments.List(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var in comments.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Comments.Add(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Comment created successfully", "comment": c})
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var in comments.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.deps.Comments.Reply(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Reply created successfully", "reply": reply})
}

func (s *Server) handleCommentLike(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Comments.ToggleLike(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Notifications

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	inbox, err := s.deps.Notices.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var in notifications.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.deps.Notices.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"notification": n})
}

func (s *Server) handleMarkNotifications(w http.ResponseWriter, r *http.Request) {
	var in notifications.MarkInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Notices.Mark(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
