package main

import (
	"fmt"

	echoapi "github.com/vince-duran/TPLearn-sub006/apps/api/echo"
)

// mintToken prints a signed JWT for a payment validator account.
func (cli *commandLine) mintToken(validatorID, name string, isAdmin bool) error {
	claims := echoapi.GetValidatorClaims(cli.conf, validatorID, name, isAdmin)
	token, err := echoapi.GenerateToken(cli.conf, claims)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
