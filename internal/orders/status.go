package orders

import (
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
)

// The lifecycle runs pending → processing → shipped → delivered → completed,
// with cancelled reachable from any non-terminal state. The machine does not
// force the happy-path sequence; it only refuses to leave a terminal state.
// Who may move an order is decided per actor in the service.
func authorizeTransition(current, target enums.OrderStatus) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status: "+target.String())
	}
	if current.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeConflict,
			"order is "+current.String()+" and can no longer change status")
	}
	return nil
}
