package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"rebelodds/internal/engine"
)

func TestMapEngineError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		want int
	}{
		{engine.ErrValidation, http.StatusBadRequest},
		{engine.ErrNotFound, http.StatusNotFound},
		{engine.ErrStateConflict, http.StatusConflict},
		{engine.ErrAlreadyResolved, http.StatusConflict},
		{engine.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{engine.ErrInsufficientShares, http.StatusUnprocessableEntity},
		{engine.ErrTradeTooSmall, http.StatusUnprocessableEntity},
		{engine.ErrUnauthorized, http.StatusForbidden},
		{engine.ErrPersistence, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		mapEngineError(c, fmt.Errorf("wrapped: %w", tc.err))
		if rec.Code != tc.want {
			t.Fatalf("%v mapped to %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestPaginationMeta(t *testing.T) {
	meta := paginationMeta(10, 0, 25)
	if meta["has_next"] != true {
		t.Fatalf("expected has_next for 0+10 of 25")
	}
	meta = paginationMeta(10, 20, 25)
	if meta["has_next"] != false {
		t.Fatalf("expected no next page for 20+10 of 25")
	}
}
