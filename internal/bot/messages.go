package bot

import "fmt"

// welcomeAnimationURL は登録成功時に送るアニメーション。
const welcomeAnimationURL = "https://i.pinimg.com/originals/a5/9e/47/a59e4748afd790aa94569e35f4b2e962.gif"

// greetingRegistered は登録済み利用者への/start応答を組み立てる。
func greetingRegistered(calendarURL string) string {
	return fmt.Sprintf(
		"🧘‍♀️ <b>Hello and welcome!</b>\n\n"+
			"This is your iCal url to add to Google Calendar: %s\n\n"+
			"If you have troubles with calendar, send your token from"+
			" https://sport.innopolis.university again.",
		calendarURL,
	)
}

// greetingUnregistered は未登録利用者への/start応答（登録手順）。
const greetingUnregistered = "🧘‍♀️ <b>Hello and welcome!</b>\n\n" +
	"You need to complete authorization process to use this bot:\n\n" +
	"1. Go to the <a href='https://sport.innopolis.university'>sport website</a>\n" +
	"2. Open DevTools using <b>Ctrl+Shift+I</b>\n" +
	"3. Go to tab <b>Application</b>\n" +
	"4. Open dropdown menu <b>Cookies</b> and select <b>https://sport.innopolis.university</b>\n" +
	"5. Copy the value of cookie <b>sessionid</b> and send it here"

// checkingCredentials は資格情報検証中に表示する一時メッセージ。
const checkingCredentials = "🧑‍💻 <b>Checking your credentials...</b>"

// authorizationFailed は検証失敗時の応答。
const authorizationFailed = "🧘‍♀️ <b>Authorization failed!</b>\n\nPlease try again"

// welcomeCaption は登録成功アニメーションのキャプションを組み立てる。
// 表示名は検証時にHTMLエスケープ済みであることが前提。
func welcomeCaption(displayName, calendarURL string) string {
	return fmt.Sprintf(
		"🧘‍♀️ <b>Welcome, %s!</b>\n\n"+
			"This is your iCal url to add to Google Calendar: %s\n\n"+
			"<i>You can forget about the existence of this bot.</i>",
		displayName, calendarURL,
	)
}
