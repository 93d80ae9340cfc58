package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/SanaAdeelKhan/geo-gap-compass/logging"
)

// saveEvery is how many requests pass between background statistics saves.
const saveEvery = 100

// Stats tracks visitors and periodically persists the statistics.
func Stats(stats *logging.Statistics, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if stats.Requests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					logger.Warn("could not save statistics", "error", err)
				}
			}()
		}
	}
}
