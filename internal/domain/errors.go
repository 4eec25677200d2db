// SPDX-License-Identifier: Apache-2.0

package domain

import "errors"

var ErrInvalidWorkflow = errors.New("invalid workflow provided")
var ErrUnknownComponentType = errors.New("unknown component type")
var ErrAppNotFound = errors.New("app not found")
var ErrAppNotPublished = errors.New("app not published")
var ErrExecutionNotFound = errors.New("execution not found")
