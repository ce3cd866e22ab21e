package party

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

func (s service) generateAuthToken(memberID string) (string, error) {
	claims := jwt.MapClaims{
		"member_id": memberID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.secret))
}

func (s service) parseAuthToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token")
	}

	memberID, ok := claims["member_id"].(string)
	if !ok {
		return "", errors.New("invalid token")
	}

	return memberID, nil
}
