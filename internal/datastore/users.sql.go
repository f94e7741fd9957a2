package datastore

const (
	insertUser = `
	INSERT INTO users (name)
	VALUES ($1)
	`

	getUser = `
	SELECT name, all_url_clicks FROM users
	WHERE name = $1
	`

	getUserShorts = `
	SELECT code, long_url FROM user_shorts
	WHERE user_name = $1
	`

	getUserShortClicks = `
	SELECT code, period, clicks FROM user_short_clicks
	WHERE user_name = $1
	`

	incrementTotalClicks = `
	UPDATE users SET all_url_clicks = all_url_clicks + @delta
	WHERE name = @user_name
	`

	// Rows are only created for existing users; unknown users are a no-op.
	incrementShortClicks = `
	INSERT INTO user_short_clicks (user_name, code, period, clicks)
	SELECT name, @code, @period, @delta FROM users WHERE name = @user_name
	ON CONFLICT (user_name, code, period)
	DO UPDATE SET clicks = user_short_clicks.clicks + EXCLUDED.clicks
	`

	upsertUserShort = `
	INSERT INTO user_shorts (user_name, code, long_url)
	SELECT name, @code, @long_url FROM users WHERE name = @user_name
	ON CONFLICT (user_name, code)
	DO UPDATE SET long_url = EXCLUDED.long_url
	`
)

const (
	insertClick = `
	INSERT INTO user_clicks (user_name, click_time, code, long_url)
	VALUES (@user_name, @click_time, @code, @long_url)
	`

	getClicksByUserName = `
	SELECT user_name, click_time, code, long_url FROM user_clicks
	WHERE user_name = $1
	ORDER BY click_time
	`
)
