package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// wsTicketTTL bounds how long a websocket ticket stays redeemable. Tickets are
// minted over the authenticated REST surface and redeemed once on connect,
// since browsers cannot set an Authorization header on a websocket dial.
const wsTicketTTL = 5 * time.Minute

// IssueWSTicket returns a short-lived signed ticket identifying the user for
// a websocket connect
func IssueWSTicket(secret []byte, userID, userName string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"name":  userName,
		"scope": "ws",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(wsTicketTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseWSTicket validates a websocket ticket and returns the user id and name
// embedded in it
func ParseWSTicket(secret []byte, ticket string) (string, string, error) {
	token, err := jwt.Parse(ticket, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid ticket")
	}
	if scope, _ := claims["scope"].(string); scope != "ws" {
		return "", "", fmt.Errorf("invalid ticket scope")
	}

	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("ticket missing subject")
	}
	return sub, name, nil
}
