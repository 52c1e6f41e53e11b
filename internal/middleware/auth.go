package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

var (
	db          *sql.DB
	redisClient *redis.Client
)

// InitAuthMiddleware wires the middleware to the database and Redis.
// Redis may be nil, in which case logout blacklisting is skipped.
func InitAuthMiddleware(database *sql.DB, rdb *redis.Client) {
	db = database
	redisClient = rdb
}

// AuthMiddleware resolves the Authorization header into a user id.
// The header carries either a raw token or a "Bearer <token>" pair.
// Failures answer 400 with INVALID_TOKEN or INVALID_USER.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			sendMessage(w, "INVALID_TOKEN", http.StatusBadRequest)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		if redisClient != nil {
			blacklisted, err := redisClient.Exists(r.Context(), fmt.Sprintf("blacklist:%s", token)).Result()
			if err != nil {
				log.Printf("[AUTH] Blacklist check failed: %v", err)
			}
			if blacklisted > 0 {
				sendMessage(w, "INVALID_TOKEN", http.StatusBadRequest)
				return
			}
		}

		userID, err := validateToken(token)
		if err != nil {
			sendMessage(w, "INVALID_TOKEN", http.StatusBadRequest)
			return
		}

		var exists bool
		if err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil || !exists {
			sendMessage(w, "INVALID_USER", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})

	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("user_id claim missing")
	}

	return int64(userID), nil
}

func sendMessage(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
