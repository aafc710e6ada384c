package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"room-status-backend/internal/geo"
	"room-status-backend/internal/store"
)

// leaseRequest is the body of start/finish/heartbeat calls. Location fields
// are pointers so that an absent field can be told apart from zero.
type leaseRequest struct {
	PCID      string   `json:"pc_id"`
	Token     string   `json:"token"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	AccuracyM *float64 `json:"accuracy_m"`
}

func fail(c *gin.Context, status int, reason string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": reason})
}

// bindLease decodes the request body. A location field of the wrong type is
// bad_location; an unreadable or incomplete body is missing_fields.
func bindLease(c *gin.Context, req *leaseRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			fail(c, http.StatusBadRequest, "bad_location")
		} else {
			fail(c, http.StatusBadRequest, "missing_fields")
		}
		return false
	}
	return true
}

// gateLocation runs the token and geofence gates shared by start and finish.
// It reports the measured distance on success and writes the error response
// on failure. The token gate comes first: a caller without the PC's token
// learns nothing, not even whether it was inside the fence.
func (h *Handler) gateLocation(c *gin.Context, req *leaseRequest) (float64, bool) {
	if req.PCID == "" || req.Token == "" || req.Lat == nil || req.Lon == nil || req.AccuracyM == nil {
		fail(c, http.StatusBadRequest, "missing_fields")
		return 0, false
	}

	if !h.store.Authorize(c.Request.Context(), req.PCID, req.Token) {
		fail(c, http.StatusForbidden, "forbidden")
		return 0, false
	}

	distance, err := h.validator.Validate(*req.Lat, *req.Lon, *req.AccuracyM)
	if err != nil {
		var rej *geo.RejectedError
		if !errors.As(err, &rej) {
			fail(c, http.StatusInternalServerError, "internal")
			return 0, false
		}
		switch rej.Reason {
		case geo.ReasonBadLocation:
			fail(c, http.StatusBadRequest, rej.Reason)
		case geo.ReasonLowAccuracy:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"ok": false, "error": rej.Reason, "accuracy_m": rej.AccuracyM,
			})
		case geo.ReasonTooFar:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"ok": false, "error": rej.Reason, "distance_m": rej.DistanceM,
			})
		}
		return 0, false
	}
	return distance, true
}

// StartLease handles POST /api/start: claim a free PC.
func (h *Handler) StartLease(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not_logged_in")
		return
	}

	var req leaseRequest
	if !bindLease(c, &req) {
		return
	}
	distance, ok := h.gateLocation(c, &req)
	if !ok {
		return
	}

	err := h.store.StartLease(c.Request.Context(), req.PCID, user.UserID, user.DisplayName, h.now())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "distance_m": distance})
	case errors.Is(err, store.ErrAlreadyBusy):
		fail(c, http.StatusConflict, "already_busy")
	case errors.Is(err, store.ErrNotFound):
		// The PC vanished between the token gate and the transition; keep the
		// response as opaque as a bad token.
		fail(c, http.StatusForbidden, "forbidden")
	default:
		fail(c, http.StatusInternalServerError, "internal")
	}
}

// FinishLease handles POST /api/finish: release a held PC.
func (h *Handler) FinishLease(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not_logged_in")
		return
	}

	var req leaseRequest
	if !bindLease(c, &req) {
		return
	}
	if _, ok := h.gateLocation(c, &req); !ok {
		return
	}

	err := h.store.FinishLease(c.Request.Context(), req.PCID, user.UserID, h.now())
	switch {
	case err == nil:
		if h.pool != nil {
			h.pool.Dispatch(req.PCID)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, store.ErrAlreadyFree):
		fail(c, http.StatusConflict, "already_free")
	case errors.Is(err, store.ErrNotOwner):
		fail(c, http.StatusConflict, "not_owner")
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusForbidden, "forbidden")
	default:
		fail(c, http.StatusInternalServerError, "internal")
	}
}

// Heartbeat handles POST /api/heartbeat: refresh the caller's lease. A
// heartbeat that matches no live lease of the caller is a silent no-op;
// stale clients should not mutate state or error loudly.
func (h *Handler) Heartbeat(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not_logged_in")
		return
	}

	var req leaseRequest
	if !bindLease(c, &req) {
		return
	}
	if req.PCID == "" || req.Token == "" {
		fail(c, http.StatusBadRequest, "missing_fields")
		return
	}

	if !h.store.Authorize(c.Request.Context(), req.PCID, req.Token) {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.store.Heartbeat(c.Request.Context(), req.PCID, user.UserID, h.now()); err != nil {
		fail(c, http.StatusInternalServerError, "internal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
