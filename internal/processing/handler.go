package processing

import (
	"context"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/gin-gonic/gin"

	"receipts/internal/event"
	"receipts/internal/metrics"
	"receipts/internal/server"
)

// HandleCloudEvent is the event-triggered entry point. A returned error marks
// the invocation as failed.
func (p *Processor) HandleCloudEvent(ctx context.Context, e cloudevents.Event) error {
	log := p.log.With().
		Str("event_id", e.ID()).
		Str("event_type", e.Type()).
		Logger()
	ctx = log.WithContext(ctx)

	ev, err := event.FromCloudEvent(e)
	if err != nil {
		log.Error().Err(err).Msg("Invalid storage event")
		p.metrics.ObserveProcess(metrics.OutcomeFailed)
		return err
	}

	_, err = p.Process(ctx, ev)
	return err
}

// NewHTTPHandler returns the local-invocation entry point: POST with the
// object metadata as JSON body. Success replies 200 with no body; any error
// replies 500 with the error text.
func NewHTTPHandler(p *Processor) http.Handler {
	engine := server.NewEngine(p.log)
	engine.POST("/*path", func(c *gin.Context) {
		ctx := c.Request.Context()

		ev, err := event.FromRequest(c.Request)
		if err != nil {
			log := server.LoggerFrom(ctx, p.log)
			log.Error().Err(err).Msg("Invalid storage event")
			p.metrics.ObserveProcess(metrics.OutcomeFailed)
			c.String(http.StatusInternalServerError, err.Error())
			return
		}

		if _, err := p.Process(ctx, ev); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusOK)
	})
	return engine
}
