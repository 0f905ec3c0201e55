//go:build !webkit_cgo

package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

func runBrowse(_ *cobra.Command, _ []string) error {
	return errors.New("browse: this binary was built without the webkit_cgo tag")
}
