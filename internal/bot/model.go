package bot

// Update is one inbound chat event reduced to what the conversation needs.
type Update struct {
	ChatID     int64
	UserID     int64
	Username   string
	Text       string
	Contact    *Contact
	Callback   string
	CallbackID string
}

// Contact is a phone number shared through the contact button.
type Contact struct {
	Phone  string
	UserID int64
}

// Button is a keyboard key. On reply keyboards only Text and RequestContact
// apply; on inline keyboards exactly one of URL or Data is set.
type Button struct {
	Text           string
	RequestContact bool
	URL            string
	Data           string
}

// Reply is one outbound message. Keyboard replaces the persistent reply
// keyboard, Inline attaches buttons to the message itself.
type Reply struct {
	Text           string
	Keyboard       [][]Button
	Inline         [][]Button
	RemoveKeyboard bool
}

const (
	cmdStart = "/start"

	btnShareContact   = "Share Phone Number"
	btnBackToStart    = "Back to Start"
	btnMakeOrder      = "Make Order"
	btnViewOrders     = "View Orders"
	btnUpdateAccount  = "Update Account"
	btnSingleOrder    = "Single Order"
	btnPoolOrder      = "Pool Order"
	btnRequestPool    = "Request New Pool"
	btnBackToMain     = "Back to Main Menu"
	btnBackToType     = "Back to Order Type"
	btnBackToPools    = "Back to Pool Selection"
	btnOpenWebApp     = "Open Web App"
	poolButtonPrefix  = "Pool "
	poolButtonsPerRow = 3

	callbackBackToType  = "back_to_order_type"
	callbackBackToPools = "back_to_pool"
)

func mainMenu() [][]Button {
	return [][]Button{
		{{Text: btnMakeOrder}, {Text: btnViewOrders}},
		{{Text: btnUpdateAccount}},
	}
}

func orderTypeMenu() [][]Button {
	return [][]Button{
		{{Text: btnSingleOrder}, {Text: btnPoolOrder}},
		{{Text: btnBackToMain}},
	}
}

func contactMenu(back string) [][]Button {
	return [][]Button{
		{{Text: btnShareContact, RequestContact: true}},
		{{Text: back}},
	}
}
