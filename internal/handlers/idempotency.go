package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kiosk/internal/domain"
)

const (
	// IdempotencyKeyHeader — заголовок, по которому дедуплицируются POST-запросы.
	IdempotencyKeyHeader = "Idempotency-Key"

	defaultIdempotencyTTL = 24 * time.Hour
)

// responseRecorder дублирует тело ответа, чтобы сохранить его для replay.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}

// Idempotency возвращает middleware, делающее POST-запросы повторяемыми:
// ответ первого выполнения сохраняется под ключом и отдаётся на повторах.
// Запрос без заголовка проходит без дедупликации.
func Idempotency(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.WithField("component", "idempotency-middleware")
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || repo == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashRequest(c.Request.Method, c.FullPath(), body)

		record, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(defaultIdempotencyTTL))
		if err != nil {
			if replayed := replay(c, record, err); replayed {
				return
			}
			logger.WithError(err).WithField("idempotency_key", key).Error("idempotency bookkeeping failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := recorder.Status()
		responseBody := recorder.body.Bytes()
		if status >= 200 && status < 300 {
			if err := repo.MarkDone(key, responseBody, status); err != nil {
				logger.WithError(err).WithField("idempotency_key", key).Warn("failed to mark idempotency done")
			}
			return
		}
		if err := repo.MarkFailed(key, responseBody, status); err != nil {
			logger.WithError(err).WithField("idempotency_key", key).Warn("failed to mark idempotency failed")
		}
	}
}

// replay отдаёт сохранённый результат, если ключ уже встречался.
func replay(c *gin.Context, record domain.IdempotencyRecord, createErr error) bool {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error": "idempotency key was used with a different request",
		})
		return true
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			c.Header("Content-Type", "application/json")
			c.String(record.HTTPStatus, string(record.ResponseBody))
			c.Abort()
			return true
		case domain.IdempotencyStatusProcessing:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "request with this idempotency key is still being processed",
			})
			return true
		}
	}
	return false
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
