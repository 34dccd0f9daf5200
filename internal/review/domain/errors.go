package domain

// UserDataError は取得した回答データが承認パイプラインの要求を満たさない場合のエラー。
// 相関メールアドレスの欠落などが該当し、ハンドラ側で 400 系として扱われる。
type UserDataError struct {
	Message string
}

func (e *UserDataError) Error() string {
	return e.Message
}

// NewUserDataError wraps message into a client-fault error.
func NewUserDataError(message string) *UserDataError {
	return &UserDataError{Message: message}
}
