package service

const (
	msgSendHi    = "👋 Welcome to ForBill! Send *hi* to create your wallet and get started."
	msgSuspended = "🚫 Your account is suspended. Please contact support."
	msgTryAgain  = "⚠️ Something went wrong on our side. Please try again in a moment."
	msgTextOnly  = "Sorry, I can only process text messages at the moment. Please send a text command."

	msgHelp = `*ForBill commands*

💰 *balance* - check your wallet
📱 *buy 500 airtime* - airtime for yourself
📱 *buy 500 airtime for 08031234567* - airtime for someone else
🌐 *1gb mtn* - data bundle
💡 *pay 5000 electricity 45123456789 ikedc* - electricity token
📺 *pay dstv 1234567890* - cable TV
🧾 *history* - recent transactions
🎁 *referral* - your referral code`

	msgUnknown = "🤔 Sorry, I didn't understand that. Send *help* to see what I can do."
)
