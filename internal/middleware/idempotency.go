package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayTTL         = 24 * time.Hour
)

// storedReply is the first response recorded under an idempotency key.
type storedReply struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency makes mutating requests replayable. A POST, PUT or PATCH
// carrying an Idempotency-Key header returns the stored first response on
// resubmission instead of re-running the handler, so a rider retrying a ride
// request after a timeout does not open a second ride. Keys are scoped per
// method and route; 5xx responses are not stored, which leaves the key free
// for a retry. An unreachable Redis degrades to a non-idempotent request.
func Idempotency(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := replayKey(c.Request.Method, c.FullPath(), key)

		data, err := client.Get(ctx, storeKey).Bytes()
		if err == nil {
			var reply storedReply
			if json.Unmarshal(data, &reply) == nil {
				c.Data(reply.Status, reply.ContentType, reply.Body)
				c.Abort()
				return
			}
		} else if !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 500 {
			reply := storedReply{
				Status:      status,
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        w.buf.Bytes(),
			}
			if data, err := json.Marshal(reply); err == nil {
				_ = client.Set(ctx, storeKey, data, replayTTL).Err()
			}
		}
	}
}

// replayKey scopes a client key to one operation: the same Idempotency-Key
// sent to a different route or method is a distinct request.
func replayKey(method, route, key string) string {
	return "idempotency:" + method + ":" + route + ":" + key
}
