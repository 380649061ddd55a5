package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// chatBody is the subset of the chat request the limiter needs.
type chatBody struct {
	ConversationID string `json:"conversation_id"`
}

// RateLimit limits chat turns per conversation per minute, backed by
// Redis counters. Requests without a conversation id pass through;
// the handler rejects them anyway. Redis failures fail open.
func RateLimit(rdb *redis.Client, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body chatBody
		if err := c.BodyParser(&body); err != nil || body.ConversationID == "" {
			return c.Next()
		}

		ctx := context.Background()
		now := time.Now()
		key := fmt.Sprintf("rl:conv:%s:minute:%s", body.ConversationID, now.Format("2006-01-02T15:04"))

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		rdb.Expire(ctx, key, 2*time.Minute)

		if count > int64(perMinute) {
			c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", "60")

			return c.Status(429).JSON(fiber.Map{
				"error":   "rate_limit_exceeded",
				"message": "Too many messages in this conversation, slow down",
			})
		}

		remaining := int64(perMinute) - count
		c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		return c.Next()
	}
}
