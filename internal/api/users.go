package api

// users はプロセス全体で不変なユーザー一覧
var users = [...]User{
	{ID: 1, Name: "Alice Johnson", Email: "alice@example.com", Role: RoleAdmin},
	{ID: 2, Name: "Bob Smith", Email: "bob@example.com", Role: RoleUser},
	{ID: 3, Name: "Carol Davis", Email: "carol@example.com", Role: RoleEditor},
	{ID: 4, Name: "David Wilson", Email: "david@example.com", Role: RoleUser},
	{ID: 5, Name: "Eva Brown", Email: "eva@example.com", Role: RoleModerator},
}

// Users は固定ユーザー一覧のコピーを返す
func Users() []User {
	out := make([]User, len(users))
	copy(out, users[:])
	return out
}
