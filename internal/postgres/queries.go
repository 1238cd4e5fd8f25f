package postgres

const (
	qInsertMessage = `
		INSERT INTO group_messages (id, group_id, user_id, user_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	// повтор засчитывается, только если id занят тем же отправителем в той же группе
	qGetOwnMessage = `
		SELECT id, group_id, user_id, user_name, content, created_at, modified_at
		FROM group_messages
		WHERE id = $1 AND group_id = $2 AND user_id = $3`

	// (created_at,id) DESC - от новых к старым, курсор на последнем элементе
	qHistory = `
		SELECT id, group_id, user_id, user_name, content, created_at, modified_at
		FROM group_messages
		WHERE group_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3::uuid)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	qInsertGroup = `
		INSERT INTO chat_groups (name, created_by)
		VALUES ($1, $2)
		RETURNING id, created_at`

	qGetGroup = `
		SELECT id, name, created_by, created_at FROM chat_groups WHERE id = $1`

	qGroupsByUser = `
		SELECT g.id, g.name, g.created_by, g.created_at
		FROM chat_groups AS g
		JOIN group_members AS m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY m.joined_at ASC, g.id ASC`

	qInsertMember = `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	qIsMember = `
		SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	qDeleteMember = `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`

	qGetUser = `
		SELECT id, email, COALESCE(display_name, '') FROM users WHERE id = $1`

	qSearchUsers = `
		SELECT id, email, COALESCE(display_name, '')
		FROM users
		WHERE display_name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\'
		ORDER BY display_name NULLS LAST, id
		LIMIT $2`
)
