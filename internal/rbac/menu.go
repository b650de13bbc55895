package rbac

// MenuItem is a single navigation entry rendered by the web client.
type MenuItem struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Route string `json:"route"`
}

var (
	itemMyProjects = MenuItem{Icon: "folder", Label: "My Projects", Route: "/my-projects"}
	itemDashboard  = MenuItem{Icon: "layout-dashboard", Label: "Dashboard", Route: "/dashboard"}
	itemProjects   = MenuItem{Icon: "folder-kanban", Label: "Projects", Route: "/projects"}
	itemTeam       = MenuItem{Icon: "users", Label: "Team", Route: "/team"}
	itemUsers      = MenuItem{Icon: "user-cog", Label: "Users", Route: "/admin/users"}
	itemExpenses   = MenuItem{Icon: "receipt", Label: "Expense Approvals", Route: "/admin/expenses"}
	itemApprovals  = MenuItem{Icon: "check-circle", Label: "Approvals", Route: "/approvals"}
)

// MenuFor returns the ordered navigation for a role. Unknown roles get no entries.
// Keep this switch in step with the Role constants and the route guards in the api package.
func MenuFor(role Role) []MenuItem {
	switch role {
	case RoleTeamMember:
		return []MenuItem{itemMyProjects}
	case RoleProjectManager:
		return []MenuItem{itemDashboard, itemProjects, itemTeam}
	case RoleAdmin:
		return []MenuItem{itemDashboard, itemProjects, itemTeam, itemUsers, itemExpenses}
	case RoleSalesFinance:
		return []MenuItem{itemApprovals}
	}
	return []MenuItem{}
}
