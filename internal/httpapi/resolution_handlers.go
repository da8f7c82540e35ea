package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/backlog/internal/dedupe"
)

type decideRequest struct {
	GroupIndex     int     `json:"group_index"`
	ActionType     string  `json:"action_type"`
	KeepID         int64   `json:"keep_id,omitempty"`
	MergePrimaryID int64   `json:"merge_primary_id,omitempty"`
	MergeFromIDs   []int64 `json:"merge_from_ids,omitempty"`
}

type changeActionRequest struct {
	ActionType string `json:"action_type"`
}

type groupMemberResponse struct {
	EntryID              int64      `json:"entry_id"`
	Title                string     `json:"title"`
	Platform             string     `json:"platform"`
	PlaytimeHours        float64    `json:"playtime_hours"`
	AchievementsEarned   int        `json:"achievements_earned"`
	AchievementsTotal    int        `json:"achievements_total"`
	CompletionPercentage float64    `json:"completion_percentage"`
	LastPlayedAt         *time.Time `json:"last_played_at,omitempty"`
	Status               string     `json:"status"`
	Priority             string     `json:"priority"`
	Notes                string     `json:"notes,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
}

type groupResponse struct {
	Index      int                   `json:"index"`
	Key        string                `json:"key"`
	MatchType  dedupe.MatchType      `json:"match_type"`
	Confidence int                   `json:"confidence"`
	Members    []groupMemberResponse `json:"members"`
}

func buildGroupResponse(index int, group dedupe.DuplicateGroup) groupResponse {
	members := make([]groupMemberResponse, 0, len(group.Members))
	for _, member := range group.Members {
		members = append(members, groupMemberResponse{
			EntryID:              member.ID,
			Title:                member.Title,
			Platform:             member.Platform,
			PlaytimeHours:        member.PlaytimeHours,
			AchievementsEarned:   member.AchievementsEarned,
			AchievementsTotal:    member.AchievementsTotal,
			CompletionPercentage: member.CompletionPercentage,
			LastPlayedAt:         member.LastPlayedAt,
			Status:               member.Status,
			Priority:             member.Priority,
			Notes:                member.Notes,
			Tags:                 member.Tags,
		})
	}

	return groupResponse{
		Index:      index,
		Key:        group.Key,
		MatchType:  group.MatchType,
		Confidence: group.Confidence,
		Members:    members,
	}
}

func buildSessionResponse(workflow *dedupe.Workflow) map[string]any {
	groups := workflow.Groups()
	groupResponses := make([]groupResponse, 0, len(groups))
	for i, group := range groups {
		groupResponses = append(groupResponses, buildGroupResponse(i, group))
	}

	return map[string]any{
		"session_id":    workflow.SessionID(),
		"state":         workflow.State(),
		"current_index": workflow.CurrentIndex(),
		"group_count":   len(groups),
		"groups":        groupResponses,
		"actions":       workflow.Actions(),
	}
}

// workflowError maps resolution state machine failures onto HTTP statuses.
// Invalid transitions are conflicts, not server faults.
func (s *Server) workflowError(c echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, dedupe.ErrInvalidState):
		return failConflict(c, err.Error())
	case errors.Is(err, dedupe.ErrNoSession):
		s.logger.Error().Err(err).Msg(message)
		return internalError(c, message)
	default:
		return failValidation(c, map[string]string{"request": err.Error()})
	}
}

func (s *Server) handleScanStart(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.workflow.State() != dedupe.StateIdle {
		session.workflow = s.newWorkflow()
	}

	if _, err := session.workflow.StartScan(c.Request().Context()); err != nil {
		return s.workflowError(c, err, "Duplicate scan failed")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleSessionState(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleDecide(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	var req decideRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	action := dedupe.PendingAction{
		Type:           dedupe.ActionType(req.ActionType),
		KeepID:         req.KeepID,
		MergePrimaryID: req.MergePrimaryID,
		MergeFromIDs:   req.MergeFromIDs,
	}
	if err := session.workflow.Decide(req.GroupIndex, action); err != nil {
		return s.workflowError(c, err, "Failed to queue decision")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleBack(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.workflow.Back(); err != nil {
		return s.workflowError(c, err, "Failed to move back")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleSummary(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	return success(c, map[string]any{
		"session_id": session.workflow.SessionID(),
		"state":      session.workflow.State(),
		"summary":    session.workflow.Summary(),
		"actions":    session.workflow.Actions(),
	})
}

func (s *Server) handleChangeAction(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	index, err := parsePositiveInt(c.Param("index"), -1, 0, 1<<30)
	if err != nil {
		return failValidation(c, map[string]string{"index": err.Error()})
	}

	var req changeActionRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.workflow.ChangeActionType(index, dedupe.ActionType(req.ActionType)); err != nil {
		return s.workflowError(c, err, "Failed to change action")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleRemoveAction(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	index, err := parsePositiveInt(c.Param("index"), -1, 0, 1<<30)
	if err != nil {
		return failValidation(c, map[string]string{"index": err.Error()})
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.workflow.RemoveAction(index); err != nil {
		return s.workflowError(c, err, "Failed to remove action")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleReviewAction(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	index, err := parsePositiveInt(c.Param("index"), -1, 0, 1<<30)
	if err != nil {
		return failValidation(c, map[string]string{"index": err.Error()})
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.workflow.GoBackToReview(index); err != nil {
		return s.workflowError(c, err, "Failed to reopen group for review")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleExecute(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	result, err := session.workflow.Execute(c.Request().Context(), func(processed, total int) {
		s.logger.Debug().
			Int64("user_id", principal.UserID).
			Int("processed", processed).
			Int("total", total).
			Msg("resolution progress")
	})
	if err != nil {
		if errors.Is(err, dedupe.ErrInvalidState) {
			return failConflict(c, err.Error())
		}
		s.logger.Error().Err(err).Int64("user_id", principal.UserID).Msg("resolution execution failed")
		return fail(c, http.StatusInternalServerError, "Resolution execution failed", map[string]string{
			"error": err.Error(),
		})
	}

	return success(c, map[string]any{
		"session_id": session.workflow.SessionID(),
		"state":      session.workflow.State(),
		"result":     result,
	})
}

func (s *Server) handleRescan(c echo.Context) error {
	if _, ok := principalFromContext(c); !ok {
		return unauthorizedResponse(c)
	}

	session := s.session
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.workflow.State() == dedupe.StateComplete {
		if _, err := session.workflow.ResetAndRescan(c.Request().Context()); err != nil {
			return s.workflowError(c, err, "Rescan failed")
		}
		return success(c, buildSessionResponse(session.workflow))
	}

	session.workflow = s.newWorkflow()
	if _, err := session.workflow.StartScan(c.Request().Context()); err != nil {
		return s.workflowError(c, err, "Rescan failed")
	}
	return success(c, buildSessionResponse(session.workflow))
}

func (s *Server) handleListDismissals(c echo.Context) error {
	dismissals, err := s.pool.ListDismissals(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query dismissals failed")
		return internalError(c, "Failed to load dismissals")
	}
	return success(c, map[string]any{
		"items": dismissals,
		"total": len(dismissals),
	})
}

func (s *Server) handleDeleteDismissal(c echo.Context) error {
	groupKey := c.Param("group_key")
	if groupKey == "" {
		return failValidation(c, map[string]string{"group_key": "is required"})
	}

	deleted, err := s.pool.DeleteDismissal(c.Request().Context(), groupKey)
	if err != nil {
		s.logger.Error().Err(err).Str("group_key", groupKey).Msg("delete dismissal failed")
		return internalError(c, "Failed to delete dismissal")
	}
	if deleted == 0 {
		return failNotFound(c, "Dismissal not found")
	}
	return success(c, map[string]any{"deleted": groupKey})
}
