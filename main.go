// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/cmdrun/cmdrun/cmd/cmdrun"

func main() {
	cmd.Execute()
}
