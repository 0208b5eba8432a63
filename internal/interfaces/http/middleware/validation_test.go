package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planBody struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Strategy  string `json:"strategy" binding:"omitempty,allocation_strategy"`
}

func TestSetupValidator(t *testing.T) {
	require.NoError(t, SetupValidator())
	// Second registration replaces the first
	require.NoError(t, SetupValidator())
}

func TestValidationErrors(t *testing.T) {
	require.NoError(t, SetupValidator())
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req planBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"strategy": req.Strategy})
	})

	post := func(body string) (*httptest.ResponseRecorder, dto.Response) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var resp dto.Response
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		return w, resp
	}

	t.Run("accepts known strategies in any case", func(t *testing.T) {
		for _, s := range []string{"FIFO", "lifo", "Fefo", ""} {
			w, _ := post(`{"product_id":"7f0c7b3e-6a51-4b8e-9d61-0f8c3c2f9a10","quantity":3,"strategy":"` + s + `"}`)
			assert.Equal(t, http.StatusOK, w.Code, s)
		}
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		w, resp := post(`{"product_id":"7f0c7b3e-6a51-4b8e-9d61-0f8c3c2f9a10","quantity":3,"strategy":"RANDOM"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Fields, 1)
		assert.Equal(t, "strategy", resp.Error.Fields[0].Field)
		assert.Equal(t, AllocationStrategyTag, resp.Error.Fields[0].Rule)
	})

	t.Run("reports every failing field with json names", func(t *testing.T) {
		w, resp := post(`{"product_id":"nope","quantity":0}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		fields := map[string]string{}
		for _, f := range resp.Error.Fields {
			fields[f.Field] = f.Rule
		}
		assert.Equal(t, "uuid", fields["product_id"])
		assert.Equal(t, "required", fields["quantity"])
		assert.Equal(t, w.Header().Get(RequestIDHeader), resp.Error.RequestID)
	})

	t.Run("malformed json", func(t *testing.T) {
		w, resp := post(`{"product_id":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Empty(t, resp.Error.Fields)
	})
}
