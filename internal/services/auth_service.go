package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9+\-_.]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
	passwordRegex = regexp.MustCompile(`^[A-Za-z\d$@$!%*#?&]{8,}$`)
)

// passwordValid requires at least one letter, one digit and one special
// character over the allowed eight-plus character alphabet.
func passwordValid(password string) bool {
	if !passwordRegex.MatchString(password) {
		return false
	}
	return strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(password, "0123456789") &&
		strings.ContainsAny(password, "$@!%*#?&")
}

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	kakao     *KakaoClient
	validator *validator.Validate
}

// SignupRequest represents the signup payload
// @Description Signup request structure
type SignupRequest struct {
	Name          *string `json:"name" validate:"required"`
	Email         *string `json:"email" validate:"required"`
	PhoneNumber   *string `json:"phone_number" validate:"required"`
	Password      *string `json:"password" validate:"required"`
	BankName      *string `json:"bank_name" validate:"required"`
	AccountNumber *string `json:"account_number" validate:"required"`
}

// SigninRequest represents the signin payload
// @Description Signin request structure
type SigninRequest struct {
	Email    *string `json:"email" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		kakao:     NewKakaoClient(),
		validator: validator.New(),
	}
}

// Signup registers a user with their withdrawal bank account
// @Summary Sign up
// @Description Register a user and open their custodial cash account
// @Tags users
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /users/signup [post]
func (s *AuthService) Signup(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendMessage(w, MsgKeyError, http.StatusBadRequest)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendMessage(w, MsgKeyError, http.StatusBadRequest)
		return
	}

	// An email registered through Kakao may finish signup; any other
	// duplicate is rejected.
	var existingID int64
	var kakaoID sql.NullInt64
	err := s.db.QueryRow(`SELECT id, kakao_id FROM users WHERE email = $1`, *req.Email).Scan(&existingID, &kakaoID)
	if err == nil && !kakaoID.Valid {
		SendMessage(w, "EMAIL_ALREADY_EXIST", http.StatusBadRequest)
		return
	}
	if err != nil && err != sql.ErrNoRows {
		log.Printf("[AUTH] Signup lookup failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	if !emailRegex.MatchString(*req.Email) || !passwordValid(*req.Password) {
		SendMessage(w, "INVALID_INPUT_FORMAT", http.StatusBadRequest)
		return
	}

	hashedPassword, err := hashPassword(*req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[AUTH] Transaction start failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	withdrawalBankID, err := getOrCreateBank(tx, *req.BankName)
	if err != nil {
		log.Printf("[AUTH] Bank upsert failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	depositID, err := createDepositAccount(tx, *req.AccountNumber, withdrawalBankID)
	if err != nil {
		log.Printf("[AUTH] Deposit account creation failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	if existingID != 0 {
		_, err = tx.Exec(`
			UPDATE users
			SET name = $1, phone_number = $2, password = $3, deposit_id = $4, updated_at = $5
			WHERE id = $6`,
			*req.Name, *req.PhoneNumber, hashedPassword, depositID, time.Now(), existingID)
	} else {
		_, err = tx.Exec(`
			INSERT INTO users (name, email, phone_number, password, deposit_id)
			VALUES ($1, $2, $3, $4, $5)`,
			*req.Name, *req.Email, *req.PhoneNumber, hashedPassword, depositID)
	}
	if err != nil {
		log.Printf("[AUTH] User write failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[AUTH] Signup commit failed for %s: %v", *req.Email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	log.Printf("[AUTH] User registered: %s", *req.Email)
	SendMessage(w, MsgSuccess, http.StatusCreated)
}

// Signin authenticates a user by email and password
// @Summary Sign in
// @Description Authenticate with email and password and issue a token
// @Tags users
// @Accept json
// @Produce json
// @Param request body SigninRequest true "Signin request"
// @Success 200 {object} object{message=string,token=string,user_name=string}
// @Failure 401 {object} map[string]string
// @Router /users/signin [post]
func (s *AuthService) Signin(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendMessage(w, MsgKeyError, http.StatusBadRequest)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendMessage(w, MsgKeyError, http.StatusBadRequest)
		return
	}

	var (
		userID         int64
		userName       string
		hashedPassword string
	)
	err := s.db.QueryRow(`SELECT id, name, password FROM users WHERE email = $1`, *req.Email).
		Scan(&userID, &userName, &hashedPassword)
	if err != nil {
		SendMessage(w, MsgInvalidUser, http.StatusUnauthorized)
		return
	}

	if !verifyPassword(*req.Password, hashedPassword) {
		SendMessage(w, MsgInvalidUser, http.StatusUnauthorized)
		return
	}

	token, err := generateJWT(userID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"message":   MsgSuccess,
		"token":     token,
		"user_name": userName,
	})
}

// KakaoSignin authenticates a user through their Kakao access token
// @Summary Sign in with Kakao
// @Description Exchange a Kakao access token for a platform token
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string,token=string,user_name=string,user_email=string}
// @Failure 400 {object} map[string]string
// @Failure 405 {object} map[string]string
// @Failure 408 {object} map[string]string
// @Router /users/signin/kakao [post]
func (s *AuthService) KakaoSignin(w http.ResponseWriter, r *http.Request) {
	accessToken := r.Header.Get("Authorization")
	if accessToken == "" {
		SendMessage(w, "TOKEN_DOES_NOT_EXIST", http.StatusBadRequest)
		return
	}

	kakaoUser, err := s.kakao.UserInfo(accessToken)
	if err != nil {
		if errors.Is(err, ErrKakaoTimeout) {
			SendMessage(w, "TIMEOUT_ERROR", http.StatusRequestTimeout)
			return
		}
		log.Printf("[AUTH] Kakao lookup failed: %v", err)
		SendMessage(w, MsgKeyError, http.StatusBadRequest)
		return
	}

	if kakaoUser.KakaoAccount.Profile == nil {
		SendMessage(w, "PROFILE_REQUIRED", http.StatusMethodNotAllowed)
		return
	}

	if kakaoUser.KakaoAccount.Email == nil {
		SendMessage(w, "EMAIL_REQUIRED", http.StatusMethodNotAllowed)
		return
	}

	email := *kakaoUser.KakaoAccount.Email
	nickname := kakaoUser.KakaoAccount.Profile.Nickname

	var (
		userID   int64
		userName string
	)
	err = s.db.QueryRow(`SELECT id, name FROM users WHERE email = $1 AND kakao_id = $2`, email, kakaoUser.ID).
		Scan(&userID, &userName)
	if err == sql.ErrNoRows {
		userID, err = s.createKakaoUser(email, nickname, kakaoUser.ID)
		userName = nickname
	}
	if err != nil {
		log.Printf("[AUTH] Kakao signin failed for %s: %v", email, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	token, err := generateJWT(userID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"message":    MsgSuccess,
		"token":      token,
		"user_name":  userName,
		"user_email": email,
	})
}

// Logout blacklists the presented token until it would have expired
// @Summary Log out
// @Description Invalidate the presented token
// @Tags users
// @Produce json
// @Success 200 {object} map[string]string
// @Router /users/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" && s.redis != nil {
		viper.SetDefault("jwt.expiry_hours", 24)
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		key := fmt.Sprintf("blacklist:%s", token)
		if err := s.redis.Set(context.Background(), key, "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	SendMessage(w, MsgSuccess, http.StatusOK)
}

// createKakaoUser registers a first-time Kakao user. A cash account is
// opened immediately so every user owns exactly one; the withdrawal
// account stays empty until full signup fills it in.
func (s *AuthService) createKakaoUser(email, nickname string, kakaoID int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	defaultBankID, err := getOrCreateBank(tx, defaultBankName())
	if err != nil {
		return 0, err
	}

	depositID, err := createDepositAccount(tx, "", defaultBankID)
	if err != nil {
		return 0, err
	}

	var userID int64
	err = tx.QueryRow(`
		INSERT INTO users (name, email, phone_number, password, deposit_id, kakao_id)
		VALUES ($1, $2, '', $3, $4, $5)
		RETURNING id`,
		nickname, email, uuid.New().String(), depositID, kakaoID).Scan(&userID)
	if err != nil {
		return 0, err
	}

	return userID, tx.Commit()
}

// defaultBankName is the platform's receiving bank.
func defaultBankName() string {
	viper.SetDefault("bank.default_name", "농협은행")
	return viper.GetString("bank.default_name")
}

func getOrCreateBank(tx *sql.Tx, name string) (int64, error) {
	var bankID int64
	err := tx.QueryRow(`SELECT id FROM banks WHERE name = $1`, name).Scan(&bankID)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(`INSERT INTO banks (name) VALUES ($1) RETURNING id`, name).Scan(&bankID)
	}
	return bankID, err
}

// createDepositAccount opens the custodial cash account. The platform
// side deposit account number is a random 14 digit string at the
// default receiving bank.
func createDepositAccount(tx *sql.Tx, withdrawalAccount string, withdrawalBankID int64) (int64, error) {
	depositBankID, err := getOrCreateBank(tx, defaultBankName())
	if err != nil {
		return 0, err
	}

	var depositID int64
	err = tx.QueryRow(`
		INSERT INTO deposit (withdrawal_account, withdrawal_bank_id, deposit_account, deposit_bank_id, balance)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id`,
		withdrawalAccount, withdrawalBankID, generateDepositAccount(), depositBankID).Scan(&depositID)

	return depositID, err
}

func generateJWT(userID int64) (string, error) {
	viper.SetDefault("jwt.expiry_hours", 24)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

type argon2Params struct {
	time      uint32
	memory    uint32
	threads   uint8
	keyLength uint32
}

func loadArgon2Params() argon2Params {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	return argon2Params{
		time:      uint32(viper.GetInt("argon2.time")),
		memory:    uint32(viper.GetInt("argon2.memory")),
		threads:   uint8(viper.GetInt("argon2.threads")),
		keyLength: uint32(viper.GetInt("argon2.key_length")),
	}
}

func hashPassword(password string) (string, error) {
	params := loadArgon2Params()

	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	params := loadArgon2Params()
	computedHash := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLength)
	return string(hash) == string(computedHash)
}

func generateDepositAccount() string {
	const digits = "0123456789"
	b := make([]byte, 14)
	for i := range b {
		b[i] = digits[rand.Intn(len(digits))]
	}
	return string(b)
}
