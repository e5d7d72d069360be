package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authorize.Access != nil
}

func (s Service) VerifyCredentials(ctx context.Context, identifier, secret string) CredentialResult {
	return RunVerifyCredentials(ctx, identifier, secret, s.deps.Credentials)
}

func (s Service) Login(ctx context.Context, identifier, secret, scope string) LoginResult {
	return RunLogin(ctx, identifier, secret, scope, s.deps.Login)
}

func (s Service) Issue(ctx context.Context, userID, scope string) IssueResult {
	return RunIssue(ctx, userID, scope, s.deps.Issue)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Authorize(ctx context.Context, bearer, required string) AuthorizeResult {
	return RunAuthorize(ctx, bearer, required, s.deps.Authorize)
}

func (s Service) Logout(ctx context.Context, bearer string) LogoutResult {
	return RunLogout(ctx, bearer, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) ResetRequestResult {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) ResetConfirmResult {
	return RunConfirmPasswordReset(ctx, uid, token, newPassword, s.deps.PasswordReset)
}
