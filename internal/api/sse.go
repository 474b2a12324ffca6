package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/the-nook/nook-api/internal/service"
)

const eventsHeartbeat = 25 * time.Second

// streamWatch relays every value from w as a server-sent event named event
// until the watch ends or the client goes away. A ping event keeps idle
// connections open through proxies.
func streamWatch[T any](c *gin.Context, w *service.Watch[T], event string, render func(T) interface{}) {
	ctx := c.Request.Context()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case v, ok := <-w.C:
			if !ok {
				return false
			}
			c.SSEvent(event, render(v))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
