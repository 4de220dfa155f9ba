package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translatePQError は制約違反をセンチネルエラーに変換し、それ以外はラップして返す。
func translatePQError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("failed to %s: %w (%s)", op, ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("failed to %s: %w (%s)", op, ErrForeignKey, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
