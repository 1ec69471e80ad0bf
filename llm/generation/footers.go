package generation

// 提示词尾部的输出格式约定，与对应的 Parse* 函数配套使用。
const (
	MessageCompletionFooter = "\nResponse format should be formatted in a valid JSON block like this:\n```json\n" +
		"{ \"user\": \"{{agentName}}\", \"text\": \"<string>\", \"action\": \"<string>\" }\n```\n\n" +
		"The \"action\" field should be one of the options in [Available Actions] and the \"text\" field should be the response you want to send.\n"

	ShouldRespondFooter = "The available options are [RESPOND], [IGNORE], or [STOP]. Choose the most appropriate option.\n" +
		"If {{agentName}} is talking too much, you can choose [IGNORE]\n\nYour response must include one of the options."

	BooleanFooter = "Respond with only a YES or a NO."

	StringArrayFooter = "Respond with a JSON array containing the values in a valid JSON block formatted for markdown with this structure:\n" +
		"```json\n[\n  'value',\n  'value'\n]\n```\n\nYour response must include the valid JSON block."

	PostActionResponseFooter = "Choose any combination of [LIKE], [RETWEET], [QUOTE], and [REPLY] that are appropriate. " +
		"Each action must be on its own line. Your response must only include the chosen actions."
)
