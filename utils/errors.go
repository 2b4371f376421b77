package utils

// PanicIfErr is for cleanup paths where an error can only mean a programming mistake
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}
