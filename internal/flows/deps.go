package flows

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Credentials   CredentialDeps
	Login         LoginDeps
	Issue         IssueDeps
	Refresh       RefreshDeps
	Authorize     AuthorizeDeps
	Logout        LogoutDeps
	PasswordReset PasswordResetDeps
}
