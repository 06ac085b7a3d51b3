package opssdk

import "context"

type Users struct {
	*Resource[User, UserInput]
}

// CompanyUsers lists the users of the caller's company.
func (r Users) CompanyUsers(ctx context.Context) ([]User, error) {
	return listOf[User](ctx, r.s, r.path("company"))
}
