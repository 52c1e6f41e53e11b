package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

var ErrKakaoTimeout = errors.New("kakao request timed out")

// KakaoClient fetches the OAuth user profile from the Kakao API with the
// access token the mobile client obtained.
type KakaoClient struct {
	userURL    string
	httpClient *http.Client
}

// KakaoUser mirrors the Kakao user-me payload. Profile and Email are
// pointers because Kakao omits them when the user withheld consent.
type KakaoUser struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   *string `json:"email"`
		Profile *struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func NewKakaoClient() *KakaoClient {
	viper.SetDefault("kakao.user_url", "https://kapi.kakao.com/v2/user/me")

	return &KakaoClient{
		userURL: viper.GetString("kakao.user_url"),
		httpClient: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

// UserInfo exchanges the access token for the user's Kakao profile.
func (c *KakaoClient) UserInfo(accessToken string) (*KakaoUser, error) {
	req, err := http.NewRequest(http.MethodGet, c.userURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrKakaoTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kakao API returned status %d", resp.StatusCode)
	}

	var user KakaoUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
