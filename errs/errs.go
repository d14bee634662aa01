// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package errs holds the card's error taxonomy as sentinel
// errors plus the signed numeric codes every configuration-reply frame
// carries in its second short.
package errs

import "errors"

// Code is the signed reply code placed in a configuration-reply frame
//. Zero means success.
type Code int16

const (
	OK                Code = 0
	UnknownCommand    Code = -1
	IllegalParameter  Code = -2
	Syntax            Code = -10
	VerifyMismatch    Code = -11
	ScNotGranted      Code = -20
	NotSupported      Code = -30
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrSyntax           = errors.New("syntax error")
	ErrIllegalParameter = errors.New("illegal parameter")
	ErrVerifyMismatch   = errors.New("verify mismatch")
	ErrScNotGranted     = errors.New("slow control not granted")
	ErrFormat           = errors.New("frame format error")
	ErrIO               = errors.New("i/o failure")
	ErrFlowTimeout      = errors.New("flow control timeout")
	ErrFatal            = errors.New("fatal error")
)

// codes maps each sentinel to its wire reply code.
var codes = map[error]Code{
	ErrUnknownCommand:   UnknownCommand,
	ErrSyntax:           Syntax,
	ErrIllegalParameter: IllegalParameter,
	ErrVerifyMismatch:   VerifyMismatch,
	ErrScNotGranted:     ScNotGranted,
}

// CodeOf maps an error from the taxonomy to its wire reply code. Errors
// outside the table (FormatError, IoFailure, FlowTimeout, Fatal) never
// reach a CFRAME reply directly and report NotSupported as a safe
// default if one ever does.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return NotSupported
}
