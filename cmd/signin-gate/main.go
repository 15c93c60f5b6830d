// Command signin-gate serves a directory of HTML pages and gates the parts
// marked with a sign-in marker behind Cognito user pool authentication.
package main

import "github.com/alexlup06-authgate/signin-go/cmd/signin-gate/cmd"

func main() {
	cmd.Execute()
}
