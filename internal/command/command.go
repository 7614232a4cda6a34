// Package command turns a free-text Arabic (or mixed Arabic/English)
// instruction into one of a fixed set of inventory/order actions.
package command

import (
	"github.com/stockdesk/ai-proxy/internal/jsonx"
)

// Action identifies which variant of a Command is populated.
type Action string

const (
	ActionDeleteOrder Action = "delete_order"
	ActionCancelOrder Action = "cancel_order"
	ActionAddStock    Action = "add_stock"
	ActionCheckStock  Action = "check_stock"
	ActionUnknown     Action = "unknown"
)

// Command is the routed result. Only the fields of the variant named by
// Action are meaningful; use the constructors to build one.
type Command struct {
	Action Action

	// delete_order, cancel_order
	Name        string
	Governorate string

	// add_stock
	Model string
	Color string
	Count int

	// unknown
	Message string
}

// DeleteOrder builds a delete_order command.
func DeleteOrder(name, governorate string) Command {
	return Command{Action: ActionDeleteOrder, Name: name, Governorate: governorate}
}

// CancelOrder builds a cancel_order command.
func CancelOrder(name, governorate string) Command {
	return Command{Action: ActionCancelOrder, Name: name, Governorate: governorate}
}

// AddStock builds an add_stock command. Counts below 1 become 1.
func AddStock(model, color string, count int) Command {
	if count < 1 {
		count = 1
	}
	return Command{Action: ActionAddStock, Model: model, Color: color, Count: count}
}

// CheckStock builds a check_stock command.
func CheckStock() Command {
	return Command{Action: ActionCheckStock}
}

// Unknown builds an unknown command carrying a human-readable hint.
func Unknown(message string) Command {
	return Command{Action: ActionUnknown, Message: message}
}

type orderTarget struct {
	Action      Action `json:"action"`
	Name        string `json:"name"`
	Governorate string `json:"governorate,omitempty"`
}

type stockAddition struct {
	Action Action `json:"action"`
	Model  string `json:"model"`
	Color  string `json:"color"`
	Count  int    `json:"count"`
}

type bareAction struct {
	Action Action `json:"action"`
}

type hint struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
}

// MarshalJSON emits only the fields of the populated variant. Order-targeting
// variants always carry "name", even when it is empty.
func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Action {
	case ActionDeleteOrder, ActionCancelOrder:
		return jsonx.Marshal(orderTarget{Action: c.Action, Name: c.Name, Governorate: c.Governorate})
	case ActionAddStock:
		return jsonx.Marshal(stockAddition{Action: c.Action, Model: c.Model, Color: c.Color, Count: c.Count})
	case ActionCheckStock:
		return jsonx.Marshal(bareAction{Action: c.Action})
	default:
		return jsonx.Marshal(hint{Action: ActionUnknown, Message: c.Message})
	}
}
