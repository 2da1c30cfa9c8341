package extract

import "regexp"

// Deposit-notification shapes per bank app. Samples in the comments are
// the formats observed on real devices; adding a bank means adding one
// table row, not new control flow.
var rules = map[string]rule{
	// KakaoBank
	//   title: "10,000원 입금"
	//   body:  "김철수 (3333-01)"
	"com.kakaobank.channel": {
		amount: tokenRef{field: fromTitle, mode: bySpace, index: 0},
		name:   tokenRef{field: fromBody, mode: bySpace, index: 0},
	},

	// Toss
	//   body: "김철수님이 10,000원을 보냈어요"
	"viva.republica.toss": {
		amount: tokenRef{field: fromBody, mode: byPattern, pattern: regexp.MustCompile(`([0-9,]+)원`)},
		name:   tokenRef{field: fromBody, mode: byPattern, pattern: regexp.MustCompile(`^(.+?)님이`)},
	},

	// KB스타뱅킹
	//   body: "10,000원\n김철수\n국민은행 입금"
	"com.kbstar.kbbank": {
		amount: tokenRef{field: fromBody, mode: byLine, index: 0},
		name:   tokenRef{field: fromBody, mode: byLine, index: 1},
	},

	// 신한 쏠
	//   title: "입금 10,000원"
	//   body:  "김철수\n110-123-456789"
	"com.shinhan.sbanking": {
		amount: tokenRef{field: fromTitle, mode: bySpace, index: 1},
		name:   tokenRef{field: fromBody, mode: byLine, index: 0},
	},

	// NH스마트뱅킹
	//   body: "입금 10,000원 김철수 잔액 52,000원"
	"nh.smart.banking": {
		amount: tokenRef{field: fromBody, mode: bySpace, index: 1},
		name:   tokenRef{field: fromBody, mode: bySpace, index: 2},
	},

	// IBK i-ONE뱅크
	//   body: "[입금] 10,000원 김철수(예금주)"
	"com.ibk.android.ionebank": {
		amount: tokenRef{field: fromBody, mode: byPattern, pattern: regexp.MustCompile(`\[입금\]\s*([0-9,]+)원`)},
		name:   tokenRef{field: fromBody, mode: byPattern, pattern: regexp.MustCompile(`원\s+(\S+?)\(`)},
	},

	// 하나 원큐 알림
	//   title: "입금통지"
	//   body:  "김철수\n10,000원"
	"com.kebhana.hanapush": {
		name:   tokenRef{field: fromBody, mode: byLine, index: 0},
		amount: tokenRef{field: fromBody, mode: byLine, index: 1},
	},
}
