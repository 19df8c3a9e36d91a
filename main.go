// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/keinus/make-sps/cmd/makesps"

func main() {
	cmd.Execute()
}
