package notificationdb

import "context"

const getUserByID = `SELECT id, nickname, delivery_token FROM users WHERE id = ?`

// GetUserByID 는 사용자 프로필을 조회한다.
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByID, id).Scan(&u.ID, &u.Nickname, &u.DeliveryToken)
	return u, err
}
