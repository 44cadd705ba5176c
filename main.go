// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/fusioner/cmd/fusioner"

func main() {
	cmd.Execute()
}
