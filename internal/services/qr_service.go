package services

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"log"
	"net/http"

	"github.com/skip2/go-qrcode"
)

// QRService renders a user's platform deposit account as a QR image so
// banking apps can scan the transfer destination.
type QRService struct {
	db *sql.DB
}

func NewQRService(db *sql.DB) *QRService {
	return &QRService{db: db}
}

// DepositAccountQR returns the user's deposit account as a QR code
// @Summary Deposit account QR
// @Description Render the user's receiving account as a QR PNG
// @Tags users
// @Produce json
// @Success 200 {object} object{deposit_bank=string,deposit_account=string,qr_image=string}
// @Failure 400 {object} map[string]string
// @Router /users/account/qr [get]
func (s *QRService) DepositAccountQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	var bankName, account string
	err := s.db.QueryRow(`
		SELECT b.name, d.deposit_account
		FROM deposit d
		JOIN users u ON u.deposit_id = d.id
		JOIN banks b ON d.deposit_bank_id = b.id
		WHERE u.id = $1`, userID).Scan(&bankName, &account)
	if err != nil {
		log.Printf("[QR] Account lookup failed for user %d: %v", userID, err)
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	image, err := s.renderQR(bankName, account)
	if err != nil {
		log.Printf("[QR] Render failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	SendJSON(w, http.StatusOK, map[string]string{
		"deposit_bank":    bankName,
		"deposit_account": account,
		"qr_image":        image,
	})
}

func (s *QRService) renderQR(bankName, account string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"bank":    bankName,
		"account": account,
	})
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
