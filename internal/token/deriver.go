// Package token はTelegramユーザーIDから公開トークンを導出する機能を提供する。
//
// 公開トークンはユーザーIDとプロセス全体ソルトのSHA-256ダイジェストであり、
// 保存・URL公開されるすべての場所でユーザーIDの代わりに使用される。
// ソルトを知らない限りトークンからユーザーIDを逆算することはできず、
// ユーザー情報の列挙を防止する。
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Deriver はユーザーIDから公開トークンを導出する。
// 同一IDに対して常に同一トークンを返す（決定的）。
type Deriver struct {
	salt string
}

// NewDeriver はDeriverを生成する。
// ソルトはconfig.Loadで必須検証済みのため空文字列は想定しない。
func NewDeriver(salt string) *Deriver {
	return &Deriver{salt: salt}
}

// Derive はTelegramユーザーIDを公開トークンに変換する。
// hex(SHA-256(userID ‖ salt)) の64文字固定長文字列を返す。
func (d *Deriver) Derive(userID int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", userID, d.salt)))
	return hex.EncodeToString(sum[:])
}
