package database

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, avatar_url, created_at, updated_at) "+
			"VALUES ($1, $2, $3, NULLIF($4, ''), $5, $5) RETURNING id, username, email, avatar_url, created_at, updated_at",
		params.Username,
		params.Email,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.AvatarUrl,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.Email,
		&user.AvatarUrl,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar_url, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarUrl,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) CreateConversation(name string, memberIds []int) (*Conversation, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO conversations (name, created_at, updated_at) "+
			"VALUES (NULLIF($1, ''), $2, $2) RETURNING id, name, created_at, updated_at",
		name,
		time.Now().UTC(),
	)

	var conv Conversation
	err = res.Scan(
		&conv.Id,
		&conv.Name,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, memberId := range memberIds {
		_, err = tx.Exec(
			"INSERT INTO conversation_members (user_id, conversation_id, created_at) VALUES ($1, $2, $3)",
			memberId,
			conv.Id,
			time.Now().UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("add member %d: %w", memberId, err)
		}
	}

	rows, err := tx.Query(
		"SELECT a.id, a.username, a.avatar_url FROM conversation_members cm "+
			"JOIN accounts a ON cm.user_id = a.id WHERE cm.conversation_id = $1",
		conv.Id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var member User
		if err = rows.Scan(&member.Id, &member.Username, &member.AvatarUrl); err != nil {
			return nil, err
		}

		conv.Members = append(conv.Members, member)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &conv, nil
}

func (db *PgChatRepository) MembershipExists(accountId, conversationId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM conversation_members WHERE user_id = $1 AND conversation_id = $2 LIMIT 1",
		accountId,
		conversationId,
	)

	var membership Membership
	err := res.Scan(
		&membership.Id,
	)

	return err == nil
}

func (db *PgChatRepository) ListConversationsForUser(accountId int) ([]Conversation, error) {
	query := `
		SELECT
				c.id,
				c.name,
				c.created_at,
				c.updated_at,
				a.id,
				a.username,
				a.avatar_url
		FROM conversation_members cm
		JOIN conversations c ON c.id = cm.conversation_id
		JOIN conversation_members m ON m.conversation_id = c.id
		JOIN accounts a ON a.id = m.user_id
		WHERE cm.user_id = $1
		ORDER BY c.id, a.id;
`

	rows, err := db.conn.Query(query, accountId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var (
			convId    int
			name      sql.NullString
			createdAt time.Time
			updatedAt time.Time
			member    User
		)

		if err = rows.Scan(&convId, &name, &createdAt, &updatedAt, &member.Id, &member.Username, &member.AvatarUrl); err != nil {
			return nil, err
		}

		if len(conversations) == 0 || conversations[len(conversations)-1].Id != convId {
			conversations = append(conversations, Conversation{
				Id:        convId,
				Name:      name,
				CreatedAt: createdAt,
				UpdatedAt: updatedAt,
			})
		}

		last := &conversations[len(conversations)-1]
		last.Members = append(last.Members, member)
	}

	return conversations, rows.Err()
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (conversation_id, sender_id, content, type, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, conversation_id, sender_id, content, type, created_at",
		params.ConversationId,
		params.SenderId,
		params.Content,
		params.Type,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ConversationId,
		&msg.SenderId,
		&msg.Content,
		&msg.Type,
		&msg.CreatedAt,
	)

	return msg, err
}

func (db *PgChatRepository) GetMessages(conversationId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.conversation_id, m.sender_id, m.content, m.type, m.created_at, a.username, a.avatar_url "+
			"FROM messages m JOIN accounts a ON m.sender_id = a.id "+
			"WHERE m.conversation_id = $1 ORDER BY m.created_at ASC, m.id ASC",
		conversationId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.ConversationId,
			&msg.SenderId,
			&msg.Content,
			&msg.Type,
			&msg.CreatedAt,
			&msg.SenderUsername,
			&msg.SenderAvatarUrl,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
