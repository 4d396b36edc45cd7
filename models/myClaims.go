package models

import (
	jwt "github.com/dgrijalva/jwt-go"
)

// DeviceClaims は匿名デバイストークンのJWTクレームの構造体定義です。
type DeviceClaims struct {
	UID string `json:"uid"`
	jwt.StandardClaims
}
