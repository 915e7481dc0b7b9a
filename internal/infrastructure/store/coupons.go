package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/apparel-commerce/internal/domain/coupon"
)

const selectCoupon = `SELECT id, code, discount_type, discount_value, used_count,
	is_discount_capped, max_uses, start_date, end_date
	FROM coupons`

func (s *PostgresStore) GetCouponByID(ctx context.Context, couponID string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := s.db.GetContext(ctx, &c, selectCoupon+` WHERE id = $1`, couponID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coupon.ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) GetCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := s.db.GetContext(ctx, &c, selectCoupon+` WHERE UPPER(code) = UPPER($1)`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coupon.ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetActiveUserCoupon returns the user's single active activation, or nil
// when none exists.
func (s *PostgresStore) GetActiveUserCoupon(ctx context.Context, userID string) (*coupon.UserCoupon, error) {
	var uc coupon.UserCoupon
	err := s.db.GetContext(ctx, &uc,
		`SELECT id, user_id, coupon_id, is_active
		 FROM user_coupons WHERE user_id = $1 AND is_active = TRUE`,
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &uc, nil
}
