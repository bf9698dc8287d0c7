package bot

// Titles of the admin-editable message table rows the flow resolves its
// texts from.
const (
	msgTitleStart    = "Начать"
	msgTitleContinue = "Продолжить покупку"
	msgTitlePayment  = "Оплата"
	msgTitlePreview  = "Посмотреть, что внутри"
	msgTitleReviews  = "Отзывы о гайде"
)

// DefaultMessages seeds the message table on first start.
var DefaultMessages = map[string]string{
	msgTitleStart:    "👋 Привет! Это бот курса. Выберите действие:",
	msgTitleContinue: "Вы собираетесь купить доступ к курсу. Нажмите «Продолжить», чтобы перейти к оформлению.",
	msgTitlePayment:  "Чтобы оплатить, перейдите по ссылке ниже.\n\nP.S. Если у вас проблемы с оплатой, нажмите кнопку «Не получается оплатить», и мы поможем.",
	msgTitlePreview:  "Внутри курса — уроки, шаблоны и разборы. Полная программа на сайте.",
	msgTitleReviews:  "Отзывы наших учеников 👆",
}

const (
	textSessionExpired = "Процесс покупки уже завершён или не начат. Нажмите «Купить» для повторного прохождения."
	textConsentDocs    = "Перед покупкой необходимо согласиться с обработкой персональных данных и акцептовать оферту.\n\n" +
		"Ознакомьтесь с документами:\n" +
		"Политика конфиденциальности: https://your-site.com/privacy\n" +
		"Оферта: https://your-site.com/offer\n\n" +
		"Подтвердите согласие, нажав на кнопки ниже:"
	textBothConsents   = "Пожалуйста, подтвердите оба согласия перед продолжением."
	textAskEmail       = "Укажите ваш email — на него придёт чек об оплате:"
	textBadEmail       = "Похоже, это не email. Проверьте адрес и отправьте ещё раз:"
	textGatewayTrouble = "Не удалось создать платёж. Попробуйте ещё раз или напишите в поддержку."
	textPaymentGone    = "Активный платёж не найден. Нажмите «Купить», чтобы начать заново."
	textProcessing     = "Платёж обрабатывается, подождите немного и проверьте снова."
	textCanceledFlow   = "Покупка отменена. Возвращайтесь, когда будете готовы!"
)
