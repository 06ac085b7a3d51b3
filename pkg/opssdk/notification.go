package opssdk

import (
	"context"
	"net/http"
)

type Notification struct {
	ID        ID     `json:"id"`
	CompanyID ID     `json:"companyId,omitempty"`
	UserID    ID     `json:"userId,omitempty"`
	Type      string `json:"type,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func (n Notification) Validate() error { return requireEntity("notification", n.ID) }

type NotificationInput struct {
	UserID  ID     `json:"userId,omitempty"`
	Type    string `json:"type,omitempty"`
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

func (in NotificationInput) Validate() error {
	errs := fieldErrors{}
	errs.required("message", in.Message)
	return errs.err()
}

type Notifications struct {
	*Resource[Notification, NotificationInput]
}

func (r Notifications) ForCompany(ctx context.Context, companyID ID) ([]Notification, error) {
	if companyID.IsZero() {
		return nil, validationError(map[string]string{"companyId": requiredReason})
	}
	return listOf[Notification](ctx, r.s, r.path("company", companyID.String()))
}

func (r Notifications) ForUser(ctx context.Context, userID ID) ([]Notification, error) {
	if userID.IsZero() {
		return nil, validationError(map[string]string{"userId": requiredReason})
	}
	return listOf[Notification](ctx, r.s, r.path("user", userID.String()))
}

func (r Notifications) MarkRead(ctx context.Context, id ID) error {
	return r.subresource(ctx, http.MethodPost, id, "read", nil, nil, nil)
}
