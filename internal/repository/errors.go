package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/lib/pq"
	"github.com/penguin2121/catalogOnline/internal/model"
)

// ErrEmailTaken はメールアドレスの一意制約違反を示す。
// 同一ユーザーの初回ログインが並行した場合に発生する。
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

// wrapError はドライバのエラーにopの説明を付与する。
// 接続系のエラーはmodel.ErrStoreUnavailableとして扱えるようにラップする。
func wrapError(op string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("failed to %s: %w: %v", op, model.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// isConnectionError はストアに到達できないことを示すエラーかどうかを判定する。
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: Connection Exception
		return pqErr.Code.Class() == "08"
	}
	return false
}

// isUniqueViolation は一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
