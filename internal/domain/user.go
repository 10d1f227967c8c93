package domain

// User es el objeto de dominio construido desde el request de signup.
// Lleva la contraseña validada, todavia sin hashear.
type User struct {
	Email       Email
	Password    Password
	Requires2FA bool
}

// UserRecord es la representacion persistida: la contraseña ya paso
// por el hasher y solo se guarda su hash.
type UserRecord struct {
	Email        Email
	PasswordHash string
	Requires2FA  bool
}

// NewUser valida email y contraseña crudos y construye el usuario.
func NewUser(email, password string, requires2FA bool) (User, error) {
	parsedEmail, err := ParseEmail(email)
	if err != nil {
		return User{}, err
	}
	parsedPassword, err := ParsePassword(password)
	if err != nil {
		return User{}, err
	}
	return User{
		Email:       parsedEmail,
		Password:    parsedPassword,
		Requires2FA: requires2FA,
	}, nil
}
